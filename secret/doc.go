/*
Package secret provides access to TLS secrets stored in AWS Secrets Manager.

BasicSecretsManager provides a tlsvault.SecretStore backed by Secrets Manager
that translates throttling responses into tlsvault.ThrottledError so that callers
can back off and retry.

The BasicSecretsManagerClient provides a convenience wrapper around the
Secrets Manager API. If BasicSecretsManager does not fulfill your needs, you can
make calls directly to the Secrets Manager API instead.
*/
package secret
