// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package cli provides the root command and global flags for fetchkit.

Individual commands live in the internal/commands subpackages and are added
to the root by main.

# Command Tree

	fetchkit
	├── get        GET a URL
	├── post       POST a JSON body
	├── upload     PUT raw bytes
	├── fact       Print a random cat fact
	├── store      Save, restore and clear named values
	│   ├── save
	│   ├── restore
	│   ├── clear
	│   └── keys
	├── config     Show, locate and validate configuration
	│   ├── show
	│   ├── path
	│   └── validate
	├── completion Generate shell completion scripts
	└── version    Show version

# Global Flags

	--verbose, -v    Enable verbose output
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file
	--metrics        Print request metrics on exit

# Exit Codes

  - 0: a handler produced the output
  - 1: the command could not complete
  - 2: invalid usage or configuration
  - 3: no handler matched and the fallback was printed
*/
package cli
