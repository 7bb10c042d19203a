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
	"strings"
	"time"
)

type (
	// Option is a flag.FlagSet whose flags may have several names
	// ("c|config") and which keeps its own usage text.
	Option struct {
		flag.FlagSet
		optsDesc string
	}
)

// define registers the flag under every name in "a|b|c" and returns the
// names formatted for the usage text.
func (o *Option) define(name string, def func(n string)) string {
	var opts []string
	for _, n := range strings.Split(name, "|") {
		if n != "" {
			def(n)
			opts = append(opts, "-"+n)
		}
	}
	return strings.Join(opts, ", ")
}

func (o *Option) ValueOption(value flag.Value, name string, usage string) {
	if name == "" {
		return
	}
	opt := o.define(name, func(n string) { o.Var(value, n, "") })
	o.optsDesc += fmt.Sprintf("  %s value\n    \t%s \n\n", opt, usage)
}

func (o *Option) StringOption(p *string, name string, value string, usage string) {
	if name == "" {
		return
	}
	opt := o.define(name, func(n string) { o.StringVar(p, n, value, "") })
	o.optsDesc += fmt.Sprintf("  %s string\n    \t(default \"%s\")\n    \t%s\n\n", opt, value, usage)
}

func (o *Option) BoolOption(p *bool, name string, value bool, usage string) {
	if name == "" {
		return
	}
	opt := o.define(name, func(n string) { o.BoolVar(p, n, value, "") })
	o.optsDesc += fmt.Sprintf("  %s\n    \t(default %v)\n    \t%s\n\n", opt, value, usage)
}

func (o *Option) UintOption(p *uint, name string, value uint, usage string) {
	if name == "" {
		return
	}
	opt := o.define(name, func(n string) { o.UintVar(p, n, value, "") })
	o.optsDesc += fmt.Sprintf("  %s uint\n    \t(default %v)\n    \t%s\n\n", opt, value, usage)
}

func (o *Option) IntOption(p *int, name string, value int, usage string) {
	if name == "" {
		return
	}
	opt := o.define(name, func(n string) { o.IntVar(p, n, value, "") })
	o.optsDesc += fmt.Sprintf("  %s int\n    \t(default %v)\n    \t%s\n\n", opt, value, usage)
}

func (o *Option) DurationOption(p *time.Duration, name string, value time.Duration, usage string) {
	if name == "" {
		return
	}
	opt := o.define(name, func(n string) { o.DurationVar(p, n, value, "") })
	o.optsDesc += fmt.Sprintf("  %s duration\n    \t(default %s)\n    \t%s\n\n", opt, value, usage)
}

func (o *Option) GetOptionDesc() string {
	return o.optsDesc
}
