// Package version manages hot-update bundles on local storage.
//
// An update root holds extracted bundles under versions/<label> and a
// state.json naming the active one:
//
//	<root>/
//	  state.json
//	  versions/
//	    v6/...
//	    v7/...
//
// Manager answers ActivePath for the versioned-cache resolver and switches
// the active bundle atomically. Installer extracts zip, tar.gz and tar.zst
// archives into a staging directory, verifies the optional manifest.yaml
// and only then moves the bundle into place. Downloader fetches archives
// over HTTP with retries.
package version
