package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// envOverride binds LINEMAX_<key> to the flags it stands in for.
type envOverride struct {
	key   string
	flags []string
	apply func(*AppConfig, string)
}

func setString(dst func(*AppConfig) *string) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *dst(c) = v }
}

func setBool(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := dst(c)
		*p = parseBoolEnv(v, *p)
	}
}

var envOverrides = []envOverride{
	{"MAX_LINE_LENGTH", []string{"max-line-length"}, func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLineLength = n
		}
	}},
	{"BACKEND", []string{"backend"}, setString(func(c *AppConfig) *string { return &c.Backend })},
	{"POLICY", []string{"policy"}, setString(func(c *AppConfig) *string { return &c.Policy })},
	{"TRANSPORT", []string{"transport"}, setString(func(c *AppConfig) *string { return &c.Transport })},
	{"NATS_URL", []string{"nats-url"}, setString(func(c *AppConfig) *string { return &c.NATSURL })},
	{"LOG_LEVEL", []string{"log-level"}, setString(func(c *AppConfig) *string { return &c.LogLevel })},
	{"METRICS_FILE", []string{"metrics-file"}, setString(func(c *AppConfig) *string { return &c.MetricsFile })},
	{"HISTORY", []string{"history"}, setString(func(c *AppConfig) *string { return &c.HistoryFile })},
	{"QUIET", []string{"quiet", "q"}, setBool(func(c *AppConfig) *bool { return &c.Quiet })},
	{"PLAN", []string{"plan"}, setBool(func(c *AppConfig) *bool { return &c.ShowPlan })},
	{"PROGRESS", []string{"progress"}, setBool(func(c *AppConfig) *bool { return &c.Progress })},
}

// parseBoolEnv accepts true/1/yes and false/0/no in any case. Anything else
// leaves def unchanged.
func parseBoolEnv(val string, def bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// applyEnvOverrides fills every option whose flag was not given on the
// command line from its LINEMAX_ variable. Precedence is flag, then
// environment, then default. NO_COLOR is honored without the prefix.
func applyEnvOverrides(cfg *AppConfig, fs *flag.FlagSet) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for _, o := range envOverrides {
		given := false
		for _, name := range o.flags {
			given = given || explicit[name]
		}
		if given {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.key); val != "" {
			o.apply(cfg, val)
		}
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok && !explicit["no-color"] {
		cfg.NoColor = true
	}
}
