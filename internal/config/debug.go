package config

import "os"

func IsDebug() bool {
	return os.Getenv("AIZEN_DEBUG") == "1"
}
