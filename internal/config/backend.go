package config

// ConfigBackend is the persistent, user-editable layer of the configuration.
// Values read here sit between the built-in defaults and JOBTRACK_*
// environment overrides. A missing key reports ok == false with a nil error.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetBool(key string) (val bool, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetBool(key string, val bool) error
	Delete(key string) error
}
