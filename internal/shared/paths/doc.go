// Package paths provides the shell's standardized filesystem paths.
//
// It defines where sandboxed storage, downloaded update bundles and packaged
// resources live, and translates internal-scheme URLs into sandbox paths.
//
// # Directory Structure
//
//	/data/storage/
//	  ├── sandbox/          (app-private files, addressed as internal://...)
//	  └── update/
//	      ├── state.json    (active update bundle)
//	      └── versions/
//	          └── <version>/ (one extracted update bundle)
//	resources/rawfile/      (resources bundled with the app)
//
// # Usage
//
//	t := paths.NewTranslator(paths.SandboxRoot)
//	if t.IsInternal(url) {
//	    p := t.Translate(url) // internal://img/a.png -> /data/storage/sandbox/img/a.png
//	}
package paths
