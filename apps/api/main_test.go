package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fyp/core"
)

type bufferedLogger struct {
	core.NopLogger
	synced int
}

func (l *bufferedLogger) Sync() { l.synced++ }

func Test_syncLoggers(t *testing.T) {
	api, db := &bufferedLogger{}, &bufferedLogger{}

	syncLoggers(api, core.NopLogger{}, db)

	assert.Equal(t, 1, api.synced)
	assert.Equal(t, 1, db.synced)
}
