// Package config loads the daemon configuration from a JSON or YAML file
// (strict decoding, unknown fields rejected) and hot-reloads it via
// fsnotify.
package config
