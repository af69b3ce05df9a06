// Package addon loads media-center addon metadata from disk.
//
// An addon is a directory containing an addon.xml descriptor:
//
//	plugin.video.example/
//	├── addon.xml            # Identity, dependencies, extension points
//	├── main.lua             # Entry point named by the pluginsource library attribute
//	├── routes.yaml          # Optional routing table (URL pattern -> entry file)
//	└── resources/
//	    ├── settings.xml     # Setting defaults
//	    ├── lib/             # Modules the entry point may require
//	    └── language/resource.language.en_gb/strings.po
//
// The simulator consumes this package through the Repo type, which resolves
// addon ids to metadata and walks dependency graphs, and through Router, which
// maps plugin:// URL paths to entry files.
package addon
