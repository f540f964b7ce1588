package providers

import (
	"gmd/internal/ghost"
	"gmd/internal/structures"
)

func NewGhostClient(conf *structures.Config) ghost.ClientInterface {
	return ghost.NewClient(conf.Ghost.URL, conf.Ghost.AdminAPIKey, conf.Poll.RequestTimeout)
}
