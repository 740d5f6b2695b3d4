package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/config"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/logger"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func localConfig(t *testing.T) *config.Config {
	return &config.Config{
		HTTPPort:        freePort(t),
		HealthPort:      freePort(t),
		GRPCHealthPort:  freePort(t),
		CORSOrigin:      "*",
		JWTSecret:       "test-secret",
		JWTTTL:          time.Minute,
		AdminUsername:   "admin",
		AdminPassword:   "admin-pw",
		UserStore:       "memory",
		ServiceName:     "api",
		MetricsBackend:  "none",
		QueryTimeout:    time.Second,
		LimitsBackend:   "docker",
		DockerContainer: "api",
	}
}

func TestStart_LocalBackends(t *testing.T) {
	o := NewOrchestrator(localConfig(t), logger.Discard())

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	assert.NotNil(t, o.userService)
	assert.NotNil(t, o.metricService)
	assert.NotNil(t, o.limitsService)
	assert.NotNil(t, o.httpServer)
	assert.Nil(t, o.publisher)
	assert.Nil(t, o.monitoringClient)

	ok, err := o.userService.Verify(context.Background(), "admin", "admin-pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStart_UnsupportedLimitsBackend(t *testing.T) {
	cfg := localConfig(t)
	cfg.LimitsBackend = "k8s"
	o := NewOrchestrator(cfg, logger.Discard())

	err := o.Start(context.Background())

	assert.Error(t, err)
	assert.NoError(t, o.Stop())
}

func TestDisabledMetricsBackend(t *testing.T) {
	o := NewOrchestrator(localConfig(t), logger.Discard())
	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	w, err := window.Resolve(0, 1, 0, time.Now())
	require.NoError(t, err)

	_, err = o.metricService.FetchOne(context.Background(), "request_count", w)

	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}

func TestRun_ServesAPIAndHealth(t *testing.T) {
	cfg := localConfig(t)
	o := NewOrchestrator(cfg, logger.Discard())
	require.NoError(t, o.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.HTTPPort)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin-pw"})
	resp, err := http.Post(base+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var login map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, login["access_token"])

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.HealthPort))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.NoError(t, o.Stop())
}
