package cfg

type Cfg struct {
	// Application configuration
	Port     string
	DataDir  string
	SavePath string

	APIAccessKey string

	// Scraping limits
	FeedItemCap    int
	AuthorPageCap  int
	TagPageCap     int

	// Export configuration
	PDFFontPath string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
