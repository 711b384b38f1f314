/*
Package provider assembles a TLS artifact cache from the context of the EC2
instance that the process runs on.

By default, a Provider reads the instance identity from the instance metadata
service, discovers the names of the secrets holding the TLS artifacts from the
instance's tags and reads those secrets from AWS Secrets Manager in the
instance's region. Each of these collaborators can be replaced through Options.
*/
package provider
