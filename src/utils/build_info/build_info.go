package build_info

// Set with ldflags upon building
var (
	Version   = "dev"
	BuildDate = "unknown"
)
