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

// Package glog puts log levels (error, warning, info, debug, verbose) on top of
// github.com/golang/glog verbosity so that call sites can check the level
// before formatting.
package glog

import (
	"flag"
	"fmt"
	"strings"
	"sync"

	upstream "github.com/golang/glog"
)

// default is LOG_INFO
var (
	LOG_ERROR   upstream.Verbose = true
	LOG_WARN    upstream.Verbose = true
	LOG_INFO    upstream.Verbose = true
	LOG_DEBUG   upstream.Verbose = false
	LOG_VERBOSE upstream.Verbose = false

	appName string
	mtx     sync.Mutex
)

func Initialize(args ...interface{}) (err error) {
	if len(args) < 2 {
		err = fmt.Errorf("two arguments expected")
		return
	}
	var level, name string
	var ok bool
	if level, ok = args[0].(string); !ok {
		err = fmt.Errorf("a string log level expected")
		return
	}
	if name, ok = args[1].(string); !ok {
		err = fmt.Errorf("a string appname expected")
		return
	}
	InitLogging(level, name)
	return
}

// InitLogging maps level names onto glog -v values:
// error=1, warning=2, info=3, debug=4, verbose=5.
func InitLogging(level string, name string) {
	mtx.Lock()
	defer mtx.Unlock()

	if f := flag.Lookup("logtostderr"); f != nil {
		f.Value.Set("true")
	}
	appName = name

	glevel := "3"
	switch strings.ToLower(level) {
	case "error":
		glevel = "1"
	case "warning", "warn":
		glevel = "2"
	case "debug":
		glevel = "4"
	case "verbose":
		glevel = "5"
	}
	if f := flag.Lookup("v"); f != nil {
		f.Value.Set(glevel)
	}

	LOG_ERROR = upstream.V(1)
	LOG_WARN = upstream.V(2)
	LOG_INFO = upstream.V(3)
	LOG_DEBUG = upstream.V(4)
	LOG_VERBOSE = upstream.V(5)
}

func SetVModule(value string) {
	if f := flag.Lookup("vmodule"); f != nil {
		f.Value.Set(value)
	}
}

func prefix(format string) string {
	if appName == "" {
		return format
	}
	return appName + format
}

func Finalize() {
	upstream.Flush()
}

func Info(args ...interface{}) {
	if LOG_INFO {
		upstream.InfoDepth(1, args...)
	}
}

func Infoln(args ...interface{}) {
	if LOG_INFO {
		upstream.InfoDepth(1, fmt.Sprintln(args...))
	}
}

func Infof(format string, args ...interface{}) {
	if LOG_INFO {
		upstream.InfoDepth(1, fmt.Sprintf(prefix(format), args...))
	}
}

func Warning(args ...interface{}) {
	if LOG_WARN {
		upstream.WarningDepth(1, args...)
	}
}

func Warningln(args ...interface{}) {
	if LOG_WARN {
		upstream.WarningDepth(1, fmt.Sprintln(args...))
	}
}

func Warningf(format string, args ...interface{}) {
	if LOG_WARN {
		upstream.WarningDepth(1, fmt.Sprintf(prefix(format), args...))
	}
}

func Error(args ...interface{}) {
	if LOG_ERROR {
		upstream.ErrorDepth(1, args...)
	}
}

func Errorln(args ...interface{}) {
	if LOG_ERROR {
		upstream.ErrorDepth(1, fmt.Sprintln(args...))
	}
}

func Errorf(format string, args ...interface{}) {
	if LOG_ERROR {
		upstream.ErrorDepth(1, fmt.Sprintf(prefix(format), args...))
	}
}

func Debug(args ...interface{}) {
	if LOG_DEBUG {
		upstream.InfoDepth(1, args...)
	}
}

func DebugDepth(depth int, args ...interface{}) {
	if LOG_DEBUG {
		upstream.InfoDepth(depth+1, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if LOG_DEBUG {
		upstream.InfoDepth(1, fmt.Sprintf(prefix(format), args...))
	}
}

// DebugInfof logs unconditionally. Callers guard it with LOG_DEBUG.
func DebugInfof(format string, args ...interface{}) {
	upstream.InfoDepth(1, fmt.Sprintf(prefix(format), args...))
}

func Verbosef(format string, args ...interface{}) {
	if LOG_VERBOSE {
		upstream.InfoDepth(1, fmt.Sprintf(prefix(format), args...))
	}
}

func Fatal(args ...interface{}) {
	upstream.FatalDepth(1, args...)
}

func Fatalf(format string, args ...interface{}) {
	upstream.FatalDepth(1, fmt.Sprintf(prefix(format), args...))
}

func Exit(args ...interface{}) {
	upstream.ExitDepth(1, args...)
}

func Exitf(format string, args ...interface{}) {
	upstream.ExitDepth(1, fmt.Sprintf(prefix(format), args...))
}
