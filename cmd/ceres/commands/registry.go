package commands

import (
	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/workflow"
)

// Registry returns the modules of the ceres command line. Every command name
// is listed here; nothing else is dispatched.
func Registry() []modules.Module {
	deps := defaultInstanceDeps()

	return []modules.Module{
		&modules.Group{
			Name:  "infrastructure",
			Short: "Work with infrastructure projects",
			Modules: []modules.Module{
				&modules.Group{
					Name:  "asp",
					Short: "Work with ansible setup packages",
					Modules: []modules.Module{
						newAspListModule(),
					},
				},
			},
		},
		&modules.Group{
			Name:  "instances",
			Short: "Work with cloud instances",
			Modules: []modules.Module{
				newInstancesListModule(deps),
				newInstancesModule(workflow.ActionTerminate, deps),
				newInstancesModule(workflow.ActionStop, deps),
				newInstancesModule(workflow.ActionStart, deps),
				newInstancesRunModule(deps),
			},
		},
		&modules.Group{
			Name:  "profiles",
			Short: "Inspect configured profiles",
			Modules: []modules.Module{
				newProfilesListModule(),
			},
		},
	}
}
