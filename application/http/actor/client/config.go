package client

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"http-client/application/http"
	"http-client/application/http/actor/client/adapter"
	"http-client/transport"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	AdapterSocket = "socket"
	AdapterProxy  = "proxy"
	AdapterStub   = "stub"
)

// TempFile as an output stream writes response bodies to a new temporary file,
// removed when the response is closed.
const TempFile = "*"

type Config struct {
	MaxRedirects    int
	StrictRedirects bool
	UserAgent       string

	// Timeout limits each read and write on the connection.
	Timeout time.Duration
	// ConnectTimeout limits dialing. Zero means Timeout.
	ConnectTimeout time.Duration

	// Adapter names the adapter created when none is given with [WithAdapter].
	// Empty means socket, or proxy when a proxy host is set.
	Adapter     string
	HTTPVersion http.Version

	StoreResponse bool
	KeepAlive     bool
	// OutputStream is a file path response bodies are written to. Empty turns streaming off.
	OutputStream string
	// StreamTmpDir is where a [TempFile] stream is created. Empty means the OS default.
	StreamTmpDir string

	EncodeCookies bool
	ArgSeparator  string
	RFC3986Strict bool

	SSL   SSLConfig
	Proxy ProxyConfig

	// Extra holds unrecognized keys. They are passed on to the adapter.
	Extra map[string]any
}

type SSLConfig struct {
	CAFile     string
	CAPath     string
	Cert       string
	Passphrase string
	VerifyPeer bool
}

type ProxyConfig struct {
	Scheme string
	Host   string
	Port   uint16
	User   string
	Pass   string
	Auth   string
}

func DefaultConfig() Config {
	return Config{
		MaxRedirects:  5,
		UserAgent:     "http-client",
		Timeout:       10 * time.Second,
		HTTPVersion:   http.Version11,
		StoreResponse: true,
		EncodeCookies: true,
		ArgSeparator:  "&",
		SSL:           SSLConfig{VerifyPeer: true},
		Proxy:         ProxyConfig{Port: 8080},
		Extra:         make(map[string]any),
	}
}

// ConfigFromMap is [DefaultConfig] with m applied. See [Config.Apply].
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Apply(m); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFromYAML loads the keys of [Config.Apply] from a YAML document.
// Nested mappings are joined into flat keys, so "ssl: {cafile: x}" is "sslcafile".
func ConfigFromYAML(r io.Reader) (Config, error) {
	m := make(map[string]any)
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrapf(http.ErrConfiguration, "decoding yaml config: %s", err.Error())
	}
	return ConfigFromMap(m)
}

// NormalizeKey lowercases key and removes '-', '_', ' ' and '.'.
func NormalizeKey(key string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "", ".", "").Replace(strings.ToLower(key))
}

// Apply sets the options of m. Keys are compared with [NormalizeKey].
// An invalid value fails with [http.ErrConfiguration]; unknown keys go to Extra.
func (c *Config) Apply(m map[string]any) error {
	if c.Extra == nil {
		c.Extra = make(map[string]any)
	}

	for k, v := range flatten("", m) {
		if err := c.set(k, v); err != nil {
			return errors.Wrapf(http.ErrConfiguration, "option %q: %s", k, err.Error())
		}
	}
	return nil
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := prefix + NormalizeKey(k)
		if nested, ok := v.(map[string]any); ok && key != "extra" {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func (c *Config) set(key string, v any) (err error) {
	switch key {
	case "maxredirects":
		c.MaxRedirects, err = toInt(v)
		if err == nil && c.MaxRedirects < 0 {
			err = errors.New("cannot be negative")
		}
	case "strictredirects":
		c.StrictRedirects, err = toBool(v)
	case "useragent":
		c.UserAgent, err = toString(v)
	case "timeout":
		c.Timeout, err = toDuration(v)
	case "connecttimeout":
		c.ConnectTimeout, err = toDuration(v)
	case "adapter":
		c.Adapter, err = toString(v)
		if err == nil {
			c.Adapter = strings.ToLower(c.Adapter)
			switch c.Adapter {
			case "", AdapterSocket, AdapterProxy, AdapterStub:
			default:
				err = errors.Errorf("unknown adapter %q", c.Adapter)
			}
		}
	case "httpversion":
		c.HTTPVersion, err = toVersion(v)
	case "storeresponse":
		c.StoreResponse, err = toBool(v)
	case "keepalive":
		c.KeepAlive, err = toBool(v)
	case "outputstream":
		c.OutputStream, err = toStream(v)
	case "streamtmpdir":
		c.StreamTmpDir, err = toString(v)
	case "encodecookies":
		c.EncodeCookies, err = toBool(v)
	case "argseparator":
		c.ArgSeparator, err = toString(v)
	case "rfc3986strict":
		c.RFC3986Strict, err = toBool(v)
	case "sslcafile":
		c.SSL.CAFile, err = toString(v)
	case "sslcapath":
		c.SSL.CAPath, err = toString(v)
	case "sslcert":
		c.SSL.Cert, err = toString(v)
	case "sslpassphrase":
		c.SSL.Passphrase, err = toString(v)
	case "sslverifypeer":
		c.SSL.VerifyPeer, err = toBool(v)
	case "proxyscheme":
		c.Proxy.Scheme, err = toString(v)
	case "proxyhost":
		c.Proxy.Host, err = toString(v)
	case "proxyport":
		var port int
		port, err = toInt(v)
		if err == nil && (port < 0 || port > math.MaxUint16) {
			err = errors.Errorf("port %d is out of range", port)
		}
		c.Proxy.Port = uint16(port)
	case "proxyuser":
		c.Proxy.User, err = toString(v)
	case "proxypass":
		c.Proxy.Pass, err = toString(v)
	case "proxyauth":
		c.Proxy.Auth, err = toString(v)
	case "extra":
		extra, ok := v.(map[string]any)
		if !ok {
			return errors.Errorf("expected a mapping, got %T", v)
		}
		for k, ev := range extra {
			c.Extra[NormalizeKey(k)] = ev
		}
	default:
		c.Extra[key] = v
	}
	return err
}

// Validate checks values a map could not have rejected, e.g. ones set on the struct directly.
func (c Config) Validate() error {
	switch {
	case c.MaxRedirects < 0:
		return errors.Wrap(http.ErrConfiguration, "max redirects cannot be negative")
	case c.Timeout < 0 || c.ConnectTimeout < 0:
		return errors.Wrap(http.ErrConfiguration, "timeout cannot be negative")
	case c.HTTPVersion != (http.Version{}) && !c.HTTPVersion.IsSupported():
		return errors.Wrapf(http.ErrConfiguration, "unsupported http version: %s", c.HTTPVersion.Number())
	}
	return nil
}

func (c Config) adapterOptions() adapter.Options {
	return adapter.Options{
		Timeout:        c.Timeout,
		ConnectTimeout: c.ConnectTimeout,
		KeepAlive:      c.KeepAlive,
		UserAgent:      c.UserAgent,
		TLS: transport.TLSOptions{
			VerifyPeer: c.SSL.VerifyPeer,
			CAFile:     c.SSL.CAFile,
			CAPath:     c.SSL.CAPath,
			CertFile:   c.SSL.Cert,
			Passphrase: c.SSL.Passphrase,
		},
		Proxy: adapter.ProxyOptions{
			Scheme: c.Proxy.Scheme,
			Host:   c.Proxy.Host,
			Port:   c.Proxy.Port,
			User:   c.Proxy.User,
			Pass:   c.Proxy.Pass,
			Auth:   c.Proxy.Auth,
		},
		Extra: c.Extra,
	}
}

func (c Config) argSeparator() string {
	if c.ArgSeparator == "" {
		return "&"
	}
	return c.ArgSeparator
}

func (c Config) httpVersion() http.Version {
	if c.HTTPVersion == (http.Version{}) {
		return http.Version11
	}
	return c.HTTPVersion
}

func toString(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", errors.Errorf("expected a string, got %T", v)
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "yes":
			return true, nil
		case "off", "no", "":
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.Errorf("expected a boolean, got %q", v)
		}
		return b, nil
	}
	return false, errors.Errorf("expected a boolean, got %T", v)
}

func toInt(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint16:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.Errorf("expected an integer, got %q", v)
		}
		return i, nil
	}
	return 0, errors.Errorf("expected an integer, got %T", v)
}

// toDuration reads numbers as seconds, and strings as numbers or Go durations.
func toDuration(v any) (time.Duration, error) {
	var d time.Duration
	switch v := v.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		d = v
	case int:
		d = time.Duration(v) * time.Second
	case int64:
		d = time.Duration(v) * time.Second
	case float64:
		d = time.Duration(v * float64(time.Second))
	case string:
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			d = time.Duration(secs * float64(time.Second))
			break
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, errors.Errorf("expected a duration, got %q", v)
		}
		d = parsed
	default:
		return 0, errors.Errorf("expected a duration, got %T", v)
	}

	if d < 0 {
		return 0, errors.New("duration cannot be negative")
	}
	return d, nil
}

func toVersion(v any) (http.Version, error) {
	var s string
	switch v := v.(type) {
	case http.Version:
		s = v.Number()
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return http.Version{}, errors.Errorf("expected a version, got %T", v)
	}

	ver, err := http.ParseVersionNumber(s)
	if err != nil || !ver.IsSupported() {
		return http.Version{}, errors.Errorf("unsupported http version %q", s)
	}
	return ver, nil
}

// toStream reads true as [TempFile] and false as off.
func toStream(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case bool:
		if v {
			return TempFile, nil
		}
		return "", nil
	case string:
		return v, nil
	}
	return "", errors.Errorf("expected a path or a boolean, got %T", v)
}
