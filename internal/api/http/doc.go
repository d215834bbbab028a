/*
Package http is the loopback bridge for hosts that load the page over HTTP
instead of a native web-view.

Every request that is not an admin route is turned back into the URL the
page asked for and offered to the web-view controller:

	GET /_internal/page.html   -> internal://page.html
	GET /_cache/assets/app.js  -> https://cdn.example.com/assets/app.js

Percent escapes in the path are decoded before lookup, so
/_internal/my%20file.html serves "my file.html". A served response is
streamed back with its MIME type. A not-ready response
becomes 404. Requests no resolver claims fall through to NotFound.

Admin routes live under /_shell:

	GET  /_shell/health
	GET  /_shell/version
	POST /_shell/version/activate     {"version": "v7"}
	POST /_shell/version/deactivate
	POST /_shell/version/install      {"version": "v7", "url": "...", "activate": true}
	DELETE /_shell/version/:version   409 while active
	GET  /_shell/version/:version/files
	POST /_shell/version/:version/verify
	GET  /_shell/metrics              Prometheus exposition
	GET  /_shell/metrics/json
*/
package http
