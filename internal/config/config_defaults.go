package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets all configuration defaults
func setDefaults(v *viper.Viper) {
	setAppDefaults(v)
	setExtractDefaults(v)
	setPipelineDefaults(v)
	setSheetsDefaults(v)
	setSMTPDefaults(v)
	setServerDefaults(v)
	setVaultDefaults(v)
	setObservabilityDefaults(v)
}

// setAppDefaults sets application-level defaults
func setAppDefaults(v *viper.Viper) {
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB
	v.SetDefault("app.ruleSetDir", "")
	v.SetDefault("app.watchRules", false)
}

// setExtractDefaults sets extractor defaults
func setExtractDefaults(v *viper.Viper) {
	v.SetDefault("extract.provider", "heuristic")
	v.SetDefault("extract.model", "gemini-2.0-flash")
	v.SetDefault("extract.timeout", 30*time.Second)
	v.SetDefault("extract.maxRetries", 3)
	v.SetDefault("extract.temperature", 0.1)
	setCircuitBreakerDefaults(v, "extract.circuitBreaker")
}

// setPipelineDefaults sets batch pipeline defaults
func setPipelineDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.interval", 0) // 0 means run once and exit
	v.SetDefault("pipeline.followUps", false)
	v.SetDefault("pipeline.defaultRule", "default")
}

// setSheetsDefaults sets Google Sheets defaults
func setSheetsDefaults(v *viper.Viper) {
	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.readRange", "Candidates!A2:F")
	v.SetDefault("sheets.appendRange", "Results!A:G")
	setCircuitBreakerDefaults(v, "sheets.circuitBreaker")
}

// setSMTPDefaults sets follow-up mail defaults
func setSMTPDefaults(v *viper.Viper) {
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.port", 587)
}

// setServerDefaults sets HTTP server defaults
func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 1024*1024) // 1MB
	v.SetDefault("server.tls.mode", "disabled")

	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", true)
}

// setVaultDefaults sets Vault defaults
func setVaultDefaults(v *viper.Viper) {
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.tokenFile", "")
}

// setObservabilityDefaults sets observability defaults
func setObservabilityDefaults(v *viper.Viper) {
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "resumescreen")
	v.SetDefault("observability.serviceVersion", "dev")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.prettyPrint", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 30*time.Second)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.insecure", true)
}

// setCircuitBreakerDefaults sets circuit breaker defaults under the given key
func setCircuitBreakerDefaults(v *viper.Viper, prefix string) {
	v.SetDefault(prefix+".enabled", true)
	v.SetDefault(prefix+".maxRequests", 3)
	v.SetDefault(prefix+".interval", 60*time.Second)
	v.SetDefault(prefix+".timeout", 30*time.Second)
	v.SetDefault(prefix+".minRequests", 5)
	v.SetDefault(prefix+".failureThreshold", 0.6)
}
