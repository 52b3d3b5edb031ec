package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainAutosave(t *testing.T) {
	tests := []struct {
		name string
		cmd  TrainCmd
		want bool
	}{
		{"default", TrainCmd{}, true},
		{"checkpoints", TrainCmd{Checkpoint: 500}, false},
		{"disabled", TrainCmd{NoAutosave: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.autosave())
		})
	}
}

func TestUpCardLabel(t *testing.T) {
	assert.Equal(t, "2", upCardLabel(2))
	assert.Equal(t, "10", upCardLabel(10))
	assert.Equal(t, "A", upCardLabel(11))
}
