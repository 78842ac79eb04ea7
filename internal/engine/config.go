package engine

import "fmt"

// Decrypter is the credential vault surface this package depends on.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// ConnectionConfig is the persisted connection record as fetched by the
// caller: secret material is always encrypted at rest. Exactly one secret
// representation (password or connection string) may be set.
type ConnectionConfig struct {
	Kind                Kind
	Host                string
	Port                int
	Database            string
	Username            string
	EncryptedPassword   string
	EncryptedConnString string
	TLSMode             string
	AccessMode          AccessMode
}

// Resolve decrypts the secret material into a transient Config whose
// lifetime is one execution or introspection call.
func (c ConnectionConfig) Resolve(dec Decrypter) (Config, error) {
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return Config{}, err
	}
	if c.EncryptedPassword != "" && c.EncryptedConnString != "" {
		return Config{}, fmt.Errorf("connection config carries both a password and a connection string")
	}

	cfg := Config{
		Kind:       c.Kind,
		Host:       c.Host,
		Port:       c.Port,
		Database:   c.Database,
		Username:   c.Username,
		TLSMode:    c.TLSMode,
		AccessMode: c.AccessMode,
	}
	if cfg.AccessMode == "" {
		cfg.AccessMode = ModeReadOnly
	}

	if c.EncryptedPassword != "" {
		password, err := dec.Decrypt(c.EncryptedPassword)
		if err != nil {
			return Config{}, err
		}
		cfg.Password = password
	}
	if c.EncryptedConnString != "" {
		connString, err := dec.Decrypt(c.EncryptedConnString)
		if err != nil {
			return Config{}, err
		}
		cfg.ConnString = connString
	}
	return cfg, nil
}
