package main

// Options are the flags common to all commands
type Options struct {
	Config      string `short:"c" long:"config" description:"gateway config file, its backend and client sections are used"`
	Backend     string `short:"b" long:"backend" description:"url of the plant care backend, overrides the config file"`
	Credentials string `long:"credentials" description:"file the credentials are kept in (default: <user config dir>/plantctl/credentials.json)"`
	Verbose     bool   `short:"v" long:"verbose" description:"log the authentication flow"`
}

type loginCommand struct {
	app      *app
	Username string `short:"u" long:"username" description:"account name" required:"true"`
	Password string `short:"p" long:"password" description:"account password" required:"true"`
}

type registerCommand struct {
	app      *app
	Username string `short:"u" long:"username" description:"account name" required:"true"`
	Email    string `short:"e" long:"email" description:"email address"`
	Password string `short:"p" long:"password" description:"account password" required:"true"`
}

type logoutCommand struct {
	app *app
}

type statusCommand struct {
	app *app
}

type getCommand struct {
	app  *app
	Args struct {
		Path string `positional-arg-name:"PATH" description:"backend path, with an optional query"`
	} `positional-args:"true" required:"true"`
}

type postCommand struct {
	app  *app
	Data string `short:"d" long:"data" description:"JSON document sent as the request body" default:"{}"`
	Args struct {
		Path string `positional-arg-name:"PATH" description:"backend path, with an optional query"`
	} `positional-args:"true" required:"true"`
}
