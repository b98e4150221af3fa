package config

const (
	DefaultServerBaseURL = "http://localhost:5000"
	DefaultGraphPolicy   = "latest"
	DefaultStorageDir    = "~/.kgchat"
	DefaultLogLevel      = "info"
)
