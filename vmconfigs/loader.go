package vmconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/tvm/cmds"
	"github.com/reusee/tvm/configs"
	"github.com/reusee/tvm/logs"
	"github.com/reusee/tvm/modes"
)

//go:embed schema.cue
var schema string

var configFileFlag = cmds.Collect[string]("-config")

func (Module) ConfigsLoader(
	logger logs.Logger,
	mode modes.Mode,
) configs.Loader {

	var paths []string
	defer func() {
		if len(paths) > 0 {
			logger.Info("config file",
				"paths", paths,
			)
		}
	}()

	// explicit
	paths = append(paths, *configFileFlag...)
	if mode == modes.ModeDevelopment {
		return configs.NewLoader(paths, schema)
	}

	filenames := []string{
		"tvm.cue",
		".tvm.cue",
	}

	// working directory
	workingDir, err := os.Getwd()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(workingDir, filename)
			_, err := os.Stat(path)
			if err == nil {
				paths = append(paths, path)
			}
		}
	}

	// user config dir
	configDir, err := os.UserConfigDir()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(configDir, "tvm", filename)
			_, err := os.Stat(path)
			if err == nil {
				paths = append(paths, path)
			}
		}
	}

	// system wide dir
	for _, filename := range filenames {
		path := filepath.Join("/etc", filename)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	return configs.NewLoader(paths, schema)
}
