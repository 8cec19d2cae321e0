package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./course-catalog.db"

	// DefaultAvatarBucket is the storage bucket holding profile avatars
	DefaultAvatarBucket = "avatars"
)
