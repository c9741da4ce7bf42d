package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitModeArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode []string
		wantRest []string
	}{
		{
			name:     "mode first",
			args:     []string{"--mode=os", "--port=3000"},
			wantMode: []string{"--mode=os"},
			wantRest: []string{"--port=3000"},
		},
		{
			name:     "flags before mode",
			args:     []string{"--port=3000", "--config-path", "c.yaml", "--mode=os"},
			wantMode: []string{"--mode=os"},
			wantRest: []string{"--port=3000", "--config-path", "c.yaml"},
		},
		{
			name:     "separate value",
			args:     []string{"--days=7", "-mode", "stats-report", "--to=2024-03-10"},
			wantMode: []string{"-mode", "stats-report"},
			wantRest: []string{"--days=7", "--to=2024-03-10"},
		},
		{
			name:     "no mode",
			args:     []string{"--port=3000"},
			wantRest: []string{"--port=3000"},
		},
		{
			name:     "mode-like flag of a mode",
			args:     []string{"--mode=ns", "--model=x"},
			wantMode: []string{"--mode=ns"},
			wantRest: []string{"--model=x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, rest := splitModeArgs(tt.args)
			assert.Equal(t, tt.wantMode, mode)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}
