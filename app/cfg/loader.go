package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Application configuration
	Port     string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	DataDir  string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the ledger database and settings file"`
	SavePath string `long:"save-path" env:"SAVE_PATH" default:"./dir" description:"Default root directory for archived files (overridable in settings)"`

	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Scraping limits
	FeedItemCap   int `long:"feed-item-cap" env:"FEED_ITEM_CAP" default:"500" description:"Maximum items fetched from feed-style sources per task"`
	AuthorPageCap int `long:"author-page-cap" env:"AUTHOR_PAGE_CAP" default:"20" description:"Maximum listing pages fetched per author"`
	TagPageCap    int `long:"tag-page-cap" env:"TAG_PAGE_CAP" default:"5" description:"Maximum listing pages fetched per tag"`

	// Export configuration
	PDFFontPath string `long:"pdf-font" env:"PDF_FONT" description:"Path to a CJK-capable TTF font used for PDF export"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:          raw.Port,
		DataDir:       raw.DataDir,
		SavePath:      raw.SavePath,
		APIAccessKey:  raw.APIAccessKey,
		FeedItemCap:   raw.FeedItemCap,
		AuthorPageCap: raw.AuthorPageCap,
		TagPageCap:    raw.TagPageCap,
		PDFFontPath:   raw.PDFFontPath,
		UserAgent:     raw.UserAgent,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}
