package config

const (
	defaultLogDir           = "~/.local/share/dcmcanon/logs"
	defaultStateDir         = "~/.local/share/dcmcanon"
	defaultJournalFile      = "journal.db"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultFileLogLevel     = "debug"
	defaultLogRetentionDays = 30
	defaultEventBuffer      = 256
)

// PlaceholderInput and PlaceholderOutput are substituted into tool arguments
// with the record path and the temporary output path.
const (
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
)

// DefaultToolchain returns the DCMTK chain: decompress with dcmdjpeg first and
// fall back to dcmconv for records that are not JPEG/RLE encoded.
func DefaultToolchain() []Tool {
	return []Tool{
		{
			Name:         "dcmdjpeg",
			Command:      "dcmdjpeg",
			Args:         []string{"+te", PlaceholderInput, PlaceholderOutput},
			SuccessCodes: []int{0},
		},
		{
			Name:         "dcmconv",
			Command:      "dcmconv",
			Args:         []string{"+te", PlaceholderInput, PlaceholderOutput},
			SuccessCodes: []int{0},
		},
	}
}

// Default returns a Config populated with repository defaults. The tool chain
// is left empty here and filled during normalization so a file-provided
// [[toolchain]] fully replaces it.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Workers: Workers{
			PoolSize:    0,
			EventBuffer: defaultEventBuffer,
		},
		Conversion: Conversion{
			SweepStale:    true,
			RequireOutput: true,
			IncludeHidden: true,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			FileLevel:     defaultFileLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
