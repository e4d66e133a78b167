package config

const (
	defaultLogDir       = ""
	defaultCatalogPath  = "~/.local/share/recordlinker/catalog.db"
	defaultBufferSize   = 64 * 1024
	defaultSuffixLength = 6
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"

	minBufferSize   = 1
	maxBufferSize   = 64 * 1024 * 1024
	minSuffixLength = 4
	maxSuffixLength = 32
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Hashing: Hashing{
			BufferSize:   defaultBufferSize,
			SuffixLength: defaultSuffixLength,
		},
		Dedup: Dedup{
			SkipOutputInInputs: true,
		},
		Catalog: Catalog{
			Path: defaultCatalogPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
