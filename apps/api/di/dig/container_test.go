package dig_container

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
)

func Test_New_validator(t *testing.T) {
	c := New()

	err := c.Invoke(func(validate *validator.Validate, translator ut.Translator) {
		nu := user.NewUser{Name: "Grace", Email: "grace@uni.test", Roles: []user.Role{"janitor"}}
		assert.Error(t, nu.Validate(validate))
		assert.NotNil(t, translator)
	})
	require.NoError(t, err)
}

func Test_newBroadcaster(t *testing.T) {
	conf := core.NewTestConfig()

	conf.Redis.Addr = ""
	assert.Nil(t, newBroadcaster(conf, core.NopLogger{}), "redis not configured")

	conf.Redis.Addr = "127.0.0.1:1"
	assert.Nil(t, newBroadcaster(conf, core.NopLogger{}), "redis unreachable")
}
