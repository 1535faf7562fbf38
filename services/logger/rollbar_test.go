package logsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/trezcool/fyp/core"
)

func TestRollbarLogger_Enable(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		testMode bool
		want     bool
	}{
		{name: "no token", want: false},
		{name: "test mode", token: "tok", testMode: true, want: false},
		{name: "configured", token: "tok", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := core.NewTestConfig()
			conf.RollbarToken = tt.token
			conf.TestMode = tt.testMode

			l := NewRollbarLogger(zap.NewNop().Sugar(), conf)
			defer l.Enable(false)
			assert.Equal(t, tt.want, l.Enabled())

			l.Enable(true)
			assert.Equal(t, tt.want, l.Enabled())

			l.Enable(false)
			assert.False(t, l.Enabled())
		})
	}
}
