package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrigger(t *testing.T) {
	for _, tc := range []struct{ in, event, room string }{
		{"kol_promotion", "kol_promotion", ""},
		{"kol_promotion@room_2", "kol_promotion", "room_2"},
		{" stock_shortage @ room_1 ", "stock_shortage", "room_1"},
	} {
		event, room := parseTrigger(tc.in)
		assert.Equal(t, tc.event, event, tc.in)
		assert.Equal(t, tc.room, room, tc.in)
	}
}

func TestRunSimulationWritesJSONLines(t *testing.T) {
	seed, ticks, triggers, eventsFile = 7, 3, []string{"host_performance@room_1"}, ""

	var out bytes.Buffer
	require.NoError(t, runSimulation(context.Background(), &out))

	var kinds []string
	var firstLogRoom string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line struct {
			Type string                 `json:"type"`
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line.Type == "agent_log" && firstLogRoom == "" {
			firstLogRoom, _ = line.Data["room_id"].(string)
		}
		kinds = append(kinds, line.Type)
	}

	require.NotEmpty(t, kinds)
	assert.Equal(t, "room_1", firstLogRoom)
	assert.Equal(t, "global_stats", kinds[len(kinds)-1])
}

func TestRunSimulationUnknownTrigger(t *testing.T) {
	seed, ticks, triggers, eventsFile = 7, 0, []string{"nope"}, ""

	err := runSimulation(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "not found")
}
