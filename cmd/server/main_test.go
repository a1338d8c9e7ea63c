package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"gorm.io/gorm"

	"tavola/internal/config"
	"tavola/internal/server"
)

type fakeServer struct {
	startErr error
	stopErr  error
	block    bool

	started bool
	stopped bool
	gate    chan struct{}
	ready   chan struct{}
}

func newFakeServer(startErr, stopErr error, block bool) *fakeServer {
	return &fakeServer{
		startErr: startErr,
		stopErr:  stopErr,
		block:    block,
		gate:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

func (s *fakeServer) Start() error {
	s.started = true
	close(s.ready)
	if s.block {
		<-s.gate
	}
	return s.startErr
}

func (s *fakeServer) Stop() error {
	s.stopped = true
	if s.block {
		close(s.gate)
	}
	return s.stopErr
}

// stubRuntime swaps every process dependency of run for the duration of the
// test and returns the channel standing in for OS signals.
func stubRuntime(t *testing.T, cfg config.Config, srv *fakeServer) chan os.Signal {
	t.Helper()
	saved := struct {
		load      func() (config.Config, error)
		level     func(string) error
		mockDB    func(context.Context) (*gorm.DB, error)
		configure func(config.DatabaseConfig) (*gorm.DB, error)
		telemetry func(context.Context, config.TelemetryConfig) (func(context.Context) error, error)
		newServer func(server.Config) (serverLifecycle, error)
		signals   func() (<-chan os.Signal, func())
	}{loadConfigFunc, setLogLevelFunc, newMockDatabaseFunc, configureDatabase, setupTelemetryFunc, newServerFunc, subscribeShutdownSig}
	t.Cleanup(func() {
		loadConfigFunc = saved.load
		setLogLevelFunc = saved.level
		newMockDatabaseFunc = saved.mockDB
		configureDatabase = saved.configure
		setupTelemetryFunc = saved.telemetry
		newServerFunc = saved.newServer
		subscribeShutdownSig = saved.signals
	})

	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) { return &gorm.DB{}, nil }
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) { return &gorm.DB{}, nil }
	setupTelemetryFunc = func(context.Context, config.TelemetryConfig) (func(context.Context) error, error) {
		return func(context.Context) error { return nil }, nil
	}
	newServerFunc = func(server.Config) (serverLifecycle, error) { return srv, nil }

	sigCh := make(chan os.Signal, 1)
	subscribeShutdownSig = func() (<-chan os.Signal, func()) { return sigCh, func() {} }
	return sigCh
}

func mockConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{UseMock: true},
		Logging:  config.LoggingConfig{Level: "debug"},
		Auth: config.AuthConfig{Session: config.SessionConfig{
			Lifetime:     time.Hour,
			CookieName:   "test",
			CookieSecure: true,
		}},
	}
}

func TestRunUsesMockDatabaseWhenConfigured(t *testing.T) {
	srv := newFakeServer(http.ErrServerClosed, nil, true)
	sigCh := stubRuntime(t, mockConfig(), srv)

	var mockCalled bool
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		mockCalled = true
		return &gorm.DB{}, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		t.Fatal("configureDatabase should not be called when mock is enabled")
		return nil, nil
	}

	var received server.Config
	newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
		received = cfg
		return srv, nil
	}

	go func() {
		<-srv.ready
		sigCh <- syscall.SIGTERM
	}()

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !mockCalled {
		t.Fatal("expected mock database to be used")
	}
	if !srv.started || !srv.stopped {
		t.Fatal("expected server start and stop to be invoked")
	}
	if received.Engine == nil || received.Metrics == nil {
		t.Fatal("expected the server to receive the menu engine and metrics registry")
	}
	if received.Session.CookieName != "test" || !received.Session.CookieSecure {
		t.Fatalf("expected session settings to be forwarded, got %+v", received.Session)
	}
}

func TestRunReturnsErrorWhenServerStartFails(t *testing.T) {
	srv := newFakeServer(errors.New("listener failure"), nil, false)
	stubRuntime(t, mockConfig(), srv)

	if code := run(context.Background()); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if srv.stopped {
		t.Fatal("server stop should not be called on start error")
	}
}

func TestRunHandlesDatabaseConfigurationError(t *testing.T) {
	cfg := mockConfig()
	cfg.Database = config.DatabaseConfig{URL: "postgres://example"}
	stubRuntime(t, cfg, newFakeServer(nil, nil, false))

	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		t.Fatal("mock database should not be used when URL is configured")
		return nil, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		return nil, errors.New("db connection refused")
	}
	newServerFunc = func(server.Config) (serverLifecycle, error) {
		t.Fatal("server should not be built without a database")
		return nil, nil
	}

	if code := run(context.Background()); code != 1 {
		t.Fatalf("expected exit code 1 on database configuration failure, got %d", code)
	}
}

func TestRunReturnsErrorWhenLogLevelInvalid(t *testing.T) {
	stubRuntime(t, config.Config{Logging: config.LoggingConfig{Level: "invalid"}}, newFakeServer(nil, nil, false))
	setLogLevelFunc = func(string) error { return errors.New("invalid level") }

	if code := run(context.Background()); code != 1 {
		t.Fatalf("expected exit code 1 for invalid log level, got %d", code)
	}
}

func TestRunReturnsErrorWhenConfigFails(t *testing.T) {
	stubRuntime(t, config.Config{}, newFakeServer(nil, nil, false))
	loadConfigFunc = func() (config.Config, error) { return config.Config{}, errors.New("bad env") }

	if code := run(context.Background()); code != 1 {
		t.Fatalf("expected exit code 1 on config failure, got %d", code)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	srv := newFakeServer(http.ErrServerClosed, nil, true)
	stubRuntime(t, mockConfig(), srv)

	var flushed bool
	setupTelemetryFunc = func(context.Context, config.TelemetryConfig) (func(context.Context) error, error) {
		return func(context.Context) error {
			flushed = true
			return nil
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-srv.ready
		cancel()
	}()

	if code := run(ctx); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !srv.stopped {
		t.Fatal("expected server stop on cancellation")
	}
	if !flushed {
		t.Fatal("expected telemetry shutdown to run")
	}
}

func TestRunContinuesWhenTelemetrySetupFails(t *testing.T) {
	srv := newFakeServer(nil, nil, false)
	stubRuntime(t, mockConfig(), srv)
	setupTelemetryFunc = func(context.Context, config.TelemetryConfig) (func(context.Context) error, error) {
		return nil, errors.New("collector unreachable")
	}

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !srv.started {
		t.Fatal("expected server to start without tracing")
	}
}

func TestRunReportsFailedShutdown(t *testing.T) {
	srv := newFakeServer(http.ErrServerClosed, errors.New("shutdown timeout"), true)
	sigCh := stubRuntime(t, mockConfig(), srv)

	go func() {
		<-srv.ready
		sigCh <- syscall.SIGINT
	}()

	if code := run(context.Background()); code != 1 {
		t.Fatalf("expected exit code 1 when shutdown fails, got %d", code)
	}
}
