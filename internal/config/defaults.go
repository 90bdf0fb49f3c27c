package config

const (
	defaultConfigPath                  = "~/.config/splitmerge/config.toml"
	defaultStateDir                    = "~/.local/share/splitmerge"
	defaultOpenAIBaseURL               = "https://api.openai.com/v1/chat/completions"
	defaultAzureAPIVersion             = "2024-02-01"
	defaultModel                       = "gpt-4o-mini"
	defaultTemperature                 = 0.1
	defaultTimeoutSeconds              = 300
	defaultTemplatePath                = "./prompts/sample.prompt"
	defaultMaxParallel                 = 4
	defaultSeparator                   = "\n\n-----\n\n"
	defaultSafetyPercent               = 1
	defaultReservedCompletionMinTokens = 2048
	defaultCompletionTokenMinRatio     = 2
	defaultRetryMaxAttempts            = 3
	defaultRetryBaseDelayMS            = 1000
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"
	defaultLogRetentionDays            = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		LLM: LLM{
			BaseURL:         defaultOpenAIBaseURL,
			AzureAPIVersion: defaultAzureAPIVersion,
			Model:           defaultModel,
			Temperature:     defaultTemperature,
			TimeoutSeconds:  defaultTimeoutSeconds,
		},
		Prompts: Prompts{
			TemplatePath: defaultTemplatePath,
		},
		Split: Split{
			MaxParallel:                 defaultMaxParallel,
			Separator:                   defaultSeparator,
			SafetyPercent:               defaultSafetyPercent,
			ReservedCompletionMinTokens: defaultReservedCompletionMinTokens,
			CompletionTokenMinRatio:     defaultCompletionTokenMinRatio,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
		},
		History: History{
			Enabled: true,
		},
		Runtime: Runtime{
			Exclusive: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
