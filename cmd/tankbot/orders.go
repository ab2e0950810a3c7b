package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hexforge/tankbot/internal/player"
	"github.com/hexforge/tankbot/pkg/core"
	"github.com/hexforge/tankbot/pkg/hex"
)

// orderLine is one line of the external order feed:
//
//	{"player":1,"orders":[{"kind":"move","vehicle_id":3,"target":{"x":1,"y":-1,"z":0}}]}
type orderLine struct {
	Player int `json:"player"`
	Orders []struct {
		Kind      core.ActionKind `json:"kind"`
		VehicleID int             `json:"vehicle_id"`
		Target    hex.Hex         `json:"target"`
	} `json:"orders"`
}

func parseOrderLine(b []byte) (int, []player.Order, error) {
	var line orderLine
	if err := json.Unmarshal(b, &line); err != nil {
		return 0, nil, fmt.Errorf("order line: %w", err)
	}
	out := make([]player.Order, 0, len(line.Orders))
	for _, o := range line.Orders {
		out = append(out, player.Order{Kind: o.Kind, VehicleID: o.VehicleID, Target: o.Target})
	}
	return line.Player, out, nil
}

// feedOrders reads order lines from r and hands every batch to the
// channel of its player. A single external player may omit "player".
func feedOrders(ctx context.Context, r io.Reader, feeds map[int]chan []player.Order) error {
	var only chan []player.Order
	if len(feeds) == 1 {
		for _, ch := range feeds {
			only = ch
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		id, batch, err := parseOrderLine(scanner.Bytes())
		if err != nil {
			Logger.Warn("Ignoring order line", "error", err)
			continue
		}
		ch, ok := feeds[id]
		if !ok && only != nil && id == 0 {
			ch, ok = only, true
		}
		if !ok {
			Logger.Warn("Orders for a player not driven externally", "player", id)
			continue
		}
		select {
		case ch <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
