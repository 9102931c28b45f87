package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/die-net/ptunnel/internal/config"
	"github.com/die-net/ptunnel/internal/conn"
	"github.com/die-net/ptunnel/internal/dialer"
	"github.com/die-net/ptunnel/internal/resolve"
	"github.com/die-net/ptunnel/internal/socks5"
	"github.com/die-net/ptunnel/internal/tunnel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen   = pflag.StringP("listen", "l", config.DefaultListenAddr, "Local address tunnels listen on")
		proxyArg = pflag.StringP("proxy", "p", "", "Proxy as host:port, http://host:port or socks5://host:port. Defaults to $https_proxy, then $HTTPS_PROXY.")
		user     = pflag.StringP("user", "U", "", "Proxy user name")
		password = pflag.StringP("password", "P", "", "Proxy password (requires --user)")

		multithreaded      = pflag.BoolP("multithreaded", "m", false, "Run Go code on all CPUs instead of one")
		debugListen        = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /metrics (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for the proxy handshake")
		dnsCacheTTL        = pflag.Duration("dns-cache-ttl", time.Minute, "How long to cache DNS answers for direct dials; 0 disables")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		reusePort          = pflag.Bool("reuse-port", false, "Set SO_REUSEPORT on tunnel listeners")

		quiet   = pflag.BoolP("quiet", "q", false, "Disable logging")
		verbose = pflag.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	)

	if !conn.ReusePortSupported {
		_ = pflag.CommandLine.MarkHidden("reuse-port")
	}

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] LOCAL_PORT:REMOTE_HOST:REMOTE_PORT...\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(logLevel(*quiet, *verbose))

	if pflag.NArg() == 0 {
		pflag.Usage()
		return errors.New("at least one tunnel is required")
	}
	tunnels := make([]config.Tunnel, 0, pflag.NArg())
	for _, arg := range pflag.Args() {
		t, err := config.ParseTunnel(arg)
		if err != nil {
			return fmt.Errorf("invalid tunnel: %w", err)
		}
		tunnels = append(tunnels, t)
	}

	bindAddr, err := config.ParseListenAddr(*listen)
	if err != nil {
		return fmt.Errorf("invalid --listen: %w", err)
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	if err := checkProxyUser(*user, pflag.CommandLine.Changed("password")); err != nil {
		return err
	}

	proxy, err := proxyTarget(*proxyArg, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("invalid --proxy: %w", err)
	}

	if !*multithreaded {
		runtime.GOMAXPROCS(1)
	}

	resolver := resolve.New(*dnsCacheTTL, *dialTimeout, nil)
	dialCfg := dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *negotiationTimeout,
		KeepAlive:          ka,
		Resolver:           resolver,
	}
	up := upstream(proxy, *user, *password, pflag.CommandLine.Changed("password"))

	cfg := tunnel.Config{
		BindAddr:  bindAddr,
		Listen:    conn.ListenOptions{KeepAlive: ka, ReusePort: *reusePort},
		Connector: dialer.NewConnector(dialCfg, dialer.NewDirectDialer(dialCfg), up, log.StandardLogger()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, func() {
		// A second signal exits without waiting for active sessions.
		stop()
		log.Info("waiting for active connections to close")
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go flushOnSignal(ctx, resolver, hup)

	if *debugListen != "" {
		http.Handle("/metrics", promhttp.Handler())
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", *debugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
		})

		go func() {
			if err := debugSrv.Serve(debugLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("debug serve")
			}
		}()
		log.Infof("debug listening on %s", *debugListen)
	}

	if proxy != nil {
		log.Infof("using proxy %s", proxy)
	}

	if err := tunnel.Run(ctx, cfg, tunnels); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("no tunnels running")
	}

	log.Info("shutting down")
	return nil
}

// logLevel maps -q and the -v count to a logrus level: no -v logs errors
// only, and each -v adds a level up to trace.
func logLevel(quiet bool, verbose int) log.Level {
	if quiet {
		return log.PanicLevel
	}

	switch {
	case verbose <= 0:
		return log.ErrorLevel
	case verbose == 1:
		return log.WarnLevel
	case verbose == 2:
		return log.InfoLevel
	case verbose == 3:
		return log.DebugLevel
	default:
		return log.TraceLevel
	}
}

// checkProxyUser rejects a password given without a user name.
func checkProxyUser(user string, passwordSet bool) error {
	if passwordSet && user == "" {
		return errors.New("--password requires --user")
	}
	return nil
}

// flushOnSignal drops the DNS cache each time sig fires, until ctx is done.
func flushOnSignal(ctx context.Context, r *resolve.Resolver, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			r.Flush()
			log.Info("flushed DNS cache")
		}
	}
}

// proxyTarget returns the proxy named on the command line, else the one in
// the environment. A bad environment value is logged and ignored.
func proxyTarget(arg string, lookup func(string) (string, bool)) (*config.Proxy, error) {
	if arg != "" {
		p, err := config.ParseProxy(arg)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}

	p, found, err := config.ProxyFromEnv(lookup)
	if err != nil {
		log.WithError(err).Error("ignoring proxy from environment")
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func upstream(proxy *config.Proxy, name, password string, hasPassword bool) dialer.Upstream {
	up := dialer.Upstream{Proxy: proxy}
	if name == "" {
		return up
	}

	u := config.User{Name: name, Password: password, HasPassword: hasPassword}
	up.Credential = u.Encoded()
	up.SOCKS5Auth = socks5.Auth{Username: name, Password: password}
	return up
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return net.KeepAliveConfig{}, errors.New("empty")
	case "on":
		return net.KeepAliveConfig{Enable: true}, nil
	case "off":
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveInt(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveInt(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     time.Duration(keepIdle) * time.Second,
		Interval: time.Duration(keepIntvl) * time.Second,
		Count:    keepCnt,
	}, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
