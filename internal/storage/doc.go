// Package storage provides the file accessors the resolvers read from.
//
// Dir covers sandboxed app-private storage and extracted update bundles,
// both addressed by absolute path. Bundle covers resources packaged with the
// application, addressed by slash-separated relative path. Both only expose
// an existence check and a read-only open; writes go through other channels.
package storage
