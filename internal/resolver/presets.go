package resolver

// Preset is one header configuration tried against the upstream.
type Preset struct {
	Name string
	// Host replaces the target's host when set, e.g. old.reddit.com.
	Host    string
	Headers map[string]string
}

const (
	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	botUA     = "reddit-relay/1.0 (+https://github.com/qepting91/reddit-relay)"
)

// DefaultPresets is the order used when no presets file is configured.
func DefaultPresets() []Preset {
	return []Preset{
		{
			Name: "browser",
			Headers: map[string]string{
				"User-Agent":      browserUA,
				"Accept":          "application/json, text/plain, */*",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Name: "mobile",
			Headers: map[string]string{
				"User-Agent":      mobileUA,
				"Accept":          "application/json, text/plain, */*",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Name: "old-reddit",
			Host: "old.reddit.com",
			Headers: map[string]string{
				"User-Agent": browserUA,
				"Accept":     "application/json",
			},
		},
		{
			Name:    "curl",
			Headers: map[string]string{"User-Agent": "curl/8.5.0", "Accept": "*/*"},
		},
		{
			Name:    "bot",
			Headers: map[string]string{"User-Agent": botUA, "Accept": "application/json"},
		},
	}
}
