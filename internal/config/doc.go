// Package config provides the layered configuration for the GridSeal CLIs.
//
// Configuration is resolved from three sources, later sources winning:
//
//	1. Built-in defaults (Default)
//	2. A YAML config file, when one is passed to Load
//	3. GRIDSEAL_* environment variables
//
// Environment variables follow the section structure of the Config struct:
//
//	GRIDSEAL_LOGGING_LEVEL=debug
//	GRIDSEAL_KEYS_PRIVATE_KEY=keys/gridseal_private.pem
//	GRIDSEAL_KEYS_SCHEME=RSASSA-PKCS1-V1_5
//	GRIDSEAL_CACHE_TTL=30m
//	GRIDSEAL_HASHING_WORKERS=8
//
// The private key passphrase is deliberately not a config value: the config
// only names the environment variable that carries it (keys.passphrase_env,
// default GRIDSEAL_KEY_PASSPHRASE), so passphrases never land in files.
package config
