package main

import (
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"gopkg.in/yaml.v3"

	"github.com/lunixbochs/mclf/go/models"
)

const configName = "config.yaml"

var configDirs = configdir.New("lunixbochs", "mclf")

// loadConfig reads config.yaml from the first config folder holding one.
// A missing file yields the zero Config.
func loadConfig() (*models.Config, error) {
	cfg := &models.Config{}
	folder := configDirs.QueryFolderContainsFile(configName)
	if folder == nil {
		return cfg, nil
	}
	data, err := folder.ReadFile(configName)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s in %s", configName, folder.Path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s in %s", configName, folder.Path)
	}
	return cfg, nil
}
