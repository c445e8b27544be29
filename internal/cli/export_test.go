package cli

// Exported for testing.
var (
	RunConfigSet     = runConfigSet
	RunConfigGet     = runConfigGet
	RunConfigList    = runConfigList
	IsValidConfigKey = isValidConfigKey
	ValidConfigKeys  = validConfigKeys

	SupportedFormatsList = supportedFormatsList
)
