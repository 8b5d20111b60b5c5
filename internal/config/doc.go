// Package config provides configuration structures and utilities for picdedup.
// It defines the detector chain, thumbnail settings, report preferences and
// the on-disk YAML configuration file.
package config
