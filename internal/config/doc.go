// Package config defines the metasnap configuration structure.
//
// Configuration is read by confloader from a YAML file and METASNAP_
// environment variables on top of Default().
package config
