// Package config loads the ceres configuration file and resolves profiles.
//
// The file is TOML by default; a .yaml or .yml extension selects YAML:
//
//	default_profile = "staging"
//
//	[logging]
//	level = "info"
//
//	[policy]
//	paths = ["~/.ceres/policies"]
//
//	[profiles.staging]
//	local_base_dir = "~/src/infrastructure"
//	ssh_user = "admin"
//	ssh_bastion = "bastion.staging.example.com"
//
//	[profiles.staging.provider]
//	type = "aws"
//	region = "eu-central-1"
//	shared_profile = "staging"
//
// The configuration is read once per invocation and never modified afterwards.
package config
