/*
Package artifact caches the TLS artifacts that a server needs for its
handshakes: an RSA private key, the certificate chain to present and the
certificates to trust.

A Cache fetches the artifacts from a tlsvault.SecretStore on first use, retrying
throttled requests, and publishes them as one immutable Bundle. Subsequent
calls are served from memory without network access. Concurrent callers on a
cold cache share a single fetch. If a later fetch fails, the cache keeps
serving the last bundle that it fetched successfully.

Cache.GetCertificate can be used directly as the GetCertificate function of a
tls.Config.
*/
package artifact
