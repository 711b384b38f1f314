/*
Package tlsvault provides TLS servers with their private key and certificate
chain by pulling PEM-encoded material from a remote secret store, decoding it,
and caching the result so that repeated TLS handshakes do not repeatedly hit
the network.

The SecretStore interface is the boundary to the secret storage service. The
secret package implements it on top of AWS Secrets Manager.

The SecretReferenceResolver determines which secrets hold the private key and
certificates. The tag package implements one that reads the secret names from
the tags of the EC2 instance the process runs on.

The artifact package holds the cache that fetches, decodes and publishes the
TLS artifacts, and the provider package wires all of the above together from
the instance's environment.
*/
package tlsvault
