// auto-ai-router is an OpenAI-compatible HTTP gateway that fronts multiple
// upstream AI providers behind a single wire protocol.
//
// Clients speak the OpenAI REST surface; the gateway selects a provider by
// model name, multiplexes across a pool of credentials with health and
// rate-limit awareness, and rewrites requests and responses (including SSE
// streams) between the OpenAI schema and each provider's native schema.
//
// Usage:
//
//	# Start the gateway with the default configuration file
//	auto-ai-router run
//
//	# Start with a custom configuration file
//	auto-ai-router run --config /path/to/config.yaml
//
//	# Validate the configuration without starting
//	auto-ai-router validate
package main

func main() {
	Execute()
}
