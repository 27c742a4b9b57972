package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockInterval(t *testing.T) {
	obs := []Observation{
		{Number: 13, Time: 1040},
		{Number: 10, Time: 1000},
		{Number: 11, Time: 1010},
		{Number: 12, Time: 1030},
	}
	assert.Equal(t, 40.0/3, BlockInterval(obs, DefaultBlockInterval))

	// Non-contiguous pairs are skipped
	obs = []Observation{
		{Number: 10, Time: 1000},
		{Number: 11, Time: 1012},
		{Number: 15, Time: 1100},
		{Number: 16, Time: 1106},
	}
	assert.Equal(t, 9.0, BlockInterval(obs, DefaultBlockInterval))

	// Negative time differences are skipped
	obs = []Observation{
		{Number: 10, Time: 1000},
		{Number: 11, Time: 990},
		{Number: 12, Time: 1010},
	}
	assert.Equal(t, 20.0, BlockInterval(obs, DefaultBlockInterval))
}

func TestBlockIntervalFallback(t *testing.T) {
	assert.Equal(t, 15.0, BlockInterval(nil, DefaultBlockInterval))
	assert.Equal(t, 15.0, BlockInterval([]Observation{{Number: 5, Time: 1}}, DefaultBlockInterval))

	obs := []Observation{
		{Number: 10, Time: 1000},
		{Number: 12, Time: 1030},
		{Number: 13, Time: 1020},
	}
	assert.Equal(t, 15.0, BlockInterval(obs, DefaultBlockInterval))
}
