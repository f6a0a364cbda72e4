package database

// HistoryEntry is one row of the download ledger.
type HistoryEntry struct {
	ID           string `json:"id"`
	Type         string `json:"type"` // image, article, ao3
	SourceURL    string `json:"url"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	FilePath     string `json:"file_path"`
	Source       string `json:"source"` // lofter, ao3
	DownloadedAt string `json:"download_time"`
	Timestamp    int64  `json:"timestamp"`
}

// HistoryStats is the running counter block persisted next to the items.
type HistoryStats struct {
	Total    int `json:"total"`
	Images   int `json:"images"`
	Articles int `json:"articles"`
}

// HistoryFilter narrows List results. Zero values mean no filtering.
type HistoryFilter struct {
	Type   string
	Source string
	Search string
}

type HistoryRepository interface {
	IsDownloaded(url string) (bool, error)
	Record(entry HistoryEntry) error
	List(page, pageSize int, filter HistoryFilter) ([]HistoryEntry, int, HistoryStats, error)
	Stats() (HistoryStats, error)
	Delete(id string) error
	Clear() error
}
