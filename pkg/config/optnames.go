package config

// Flag names, shared between flag registration and viper lookups.
const (
	OptChunkSize    = "chunk-size"
	OptConcurrency  = "concurrency"
	OptConnTimeout  = "connect-timeout"
	OptExtract      = "extract"
	OptForce        = "force"
	OptLoggingLevel = "log-level"
	OptMerge        = "merge"
	OptMirror       = "mirror"
	OptNumParts     = "num-parts"
	OptOutput       = "output"
	OptPassword     = "password"
	OptRetries      = "retries"
	OptSinglePart   = "single-part"
	OptTimeout      = "timeout"
	OptUsername     = "username"
	OptVerbose      = "verbose"
)
