// Package file loads the pipeline configuration from disk.
//
// A config file is either TOML (.toml) or YAML (.yml, .yaml). Secrets are
// never read from it: OPENAI_API_KEY and the MILVUS_* variables come from
// the environment, optionally seeded from a .env file that never overrides
// variables already set.
package file
