package sshserver

// Config defines SSH server settings.
type Config struct {
	Addr               string
	HostKeyPath        string
	HostKeyType        string
	AuthorizedKeysPath string
	// Story names the autosave slot; each user gets their own copy.
	Story string
	Theme string
}
