//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"binpush/pkg/logging/glog"
	"binpush/pkg/version"
)

// Exit codes returned by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var (
	commands           = make(map[string]ICommand)
	groups             = make(map[string]*Group)
	notGroupedCommands []ICommand
)

type (
	ICommand interface {
		GetName() string
		GetDesc() string //get short description
		GetSynopsis() string
		GetDetails() string
		GetOptionDesc() string
		GetExample() string
		AddExample(cmdExample string, desc string)
		AddDetails(txt string)
		Init(name string, desc string)
		Exec()
		Parse(args []string) error
		PrintUsage()
		ExitCode() int
	}

	Command struct {
		Option
		name       string
		desc       string //short description. (one line)
		synopsis   string
		details    string
		examples   string
		env        string
		optVModule string
		exitCode   int
	}

	Group struct {
		cmds []ICommand
		name string
		desc string
	}
)

func (c *Command) Init(name string, desc string) {
	c.name = name
	c.desc = desc
	c.Option.Init(name, flag.ContinueOnError)
	c.StringVar(&c.optVModule, "vmodule", "", "comma-separated list of pattern=N settings for file-filtered logging")
	c.Option.Usage = c.PrintUsage
}

func (c *Command) SetSynopsis(str string) {
	c.synopsis = str
}

func (c *Command) GetName() string {
	return c.name
}

func (c *Command) GetDesc() string {
	return c.desc
}

func (c *Command) GetSynopsis() string {
	return c.synopsis
}

func (c *Command) GetDetails() string {
	return c.details
}

func (c *Command) GetExample() string {
	return c.examples
}

func (c *Command) AddExample(cmdExample string, desc string) {
	c.examples += desc + "\n\t\t" + cmdExample + "\n\n"
}

func (c *Command) AddDetails(txt string) {
	c.details += txt
}

// AddEnvironment documents an environment variable the command reads.
func (c *Command) AddEnvironment(name string, desc string) {
	c.env += "\t" + name + "\t" + desc + "\n"
}

func (c *Command) GetEnvironment() string {
	return c.env
}

func (c *Command) ExitCode() int {
	return c.exitCode
}

func (c *Command) SetExitCode(code int) {
	c.exitCode = code
}

// Report prints the outcome of the command and sets ExitFailure on error.
func (c *Command) Report(err error) bool {
	if err == nil {
		fmt.Printf("* command '%s' successful\n", c.name)
		return true
	}
	fmt.Printf("* command '%s' failed: %s\n", c.name, err)
	c.exitCode = ExitFailure
	return false
}

func (c *Command) Write(w io.Writer) {
	wo := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := usageTemplate.Execute(wo, c); err != nil {
		fmt.Fprintln(w, err)
	}
	wo.Flush()
}

func (c *Command) PrintUsage() {
	c.Write(os.Stdout)
}

func (c *Command) Validate() {
	if !c.Parsed() {
		glog.Exit("not parsed")
	}
}

func (c *Command) Parse(arguments []string) (err error) {
	if err = c.Option.Parse(arguments); err == nil {
		if c.optVModule != "" {
			glog.SetVModule(c.optVModule)
		}
	}
	return
}

// RegisterNewGroup registers cmds under a usage heading.
func RegisterNewGroup(name string, desc string, cmds ...ICommand) (grp *Group) {
	if _, grpFound := groups[name]; grpFound {
		fmt.Printf("group %s has been registered.", name)
		return
	}
	grp = &Group{name: name, desc: desc}
	for _, c := range cmds {
		if register(c) {
			grp.cmds = append(grp.cmds, c)
		}
	}
	groups[name] = grp
	return
}

func Register(c ICommand) bool {
	if register(c) {
		notGroupedCommands = append(notGroupedCommands, c)
		return true
	}
	return false
}

func register(c ICommand) bool {
	if _, found := commands[c.GetName()]; found {
		fmt.Printf("Command %s has been registered.", c.GetName())
		return false
	}
	commands[c.GetName()] = c
	return true
}

func GetCommand(name string) ICommand {
	if cmd, ok := commands[name]; ok {
		return cmd
	}
	return nil
}

// ParseArgs finds the first registered command name in argv (without the
// program name). Arguments before it are kept in front of the ones after.
func ParseArgs(argv []string) (cmd ICommand, args []string) {
	for i, arg := range argv {
		if cmd = GetCommand(arg); cmd != nil {
			args = append(args, argv[i+1:]...)
			return
		}
		args = append(args, arg)
	}
	return
}

func ParseCommandLine() (cmd ICommand, args []string) {
	return ParseArgs(os.Args[1:])
}

// Run parses the command line and executes the selected command. It returns
// the process exit code.
func Run() int {
	command, args := ParseCommandLine()
	if command == nil {
		PrintVersionOrUsage()
		return ExitSuccess
	}
	if err := command.Parse(args); err != nil {
		fmt.Printf("* command '%s' failed. %s\n", command.GetName(), err)
		return ExitUsage
	}
	command.Exec()
	return command.ExitCode()
}

func Write(w io.Writer) {
	progName := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "\nUSAGE\n  %s [-version]\n  %s <command> [options] [<args>]\n", progName, progName)
	WriteCommand(w)
	fmt.Fprintf(w, "\nRun '%s <command> -help' for the options of a command.\n", progName)
}

func WriteCommand(w io.Writer) {
	if len(groups)+len(notGroupedCommands) == 0 {
		return
	}
	fmt.Fprintln(w, "\nCOMMAND")

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if grp := groups[name]; len(grp.desc) != 0 {
			fmt.Fprintf(w, "  %s: %s\n", name, grp.desc)
		} else {
			fmt.Fprintf(w, "  %s\n", name)
		}
		for _, c := range groups[name].cmds {
			fmt.Fprintf(w, "    * %s\n      %s\n", c.GetName(), c.GetDesc())
		}
	}
	if len(notGroupedCommands) != 0 {
		if len(groups) != 0 {
			fmt.Fprintln(w, "  others")
		}
		for _, c := range notGroupedCommands {
			fmt.Fprintf(w, "    * %s\n      %s\n", c.GetName(), c.GetDesc())
		}
	}
}

func PrintUsage() {
	Write(os.Stdout)
}

func PrintVersionOrUsage() {
	var option Option
	var displayVersion bool
	option.Init(filepath.Base(os.Args[0]), flag.ContinueOnError)
	option.BoolOption(&displayVersion, "version", false, "display version info.")
	option.Usage = PrintUsage
	if err := option.Parse(os.Args[1:]); err == nil {
		if displayVersion {
			version.PrintVersionInfo()
		} else {
			PrintUsage()
		}
	}
}
