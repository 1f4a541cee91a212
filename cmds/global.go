package cmds

var GlobalExecutor = NewExecutor()

func Define(name string, command *Command) {
	GlobalExecutor.Define(name, command)
}

// Execute runs args against the global executor, printing usage and exiting on error.
func Execute(args []string) {
	if err := GlobalExecutor.Execute(args); err != nil {
		GlobalExecutor.printError(err)
	}
}
