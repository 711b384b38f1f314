/*
Package mock provides mock implementations of interfaces for testing purposes.

The SecretsManagerClient, TagClient and InstanceMetadataClient can be used for
running tests without relying on infrastructure in AWS to be set up. They are
backed by the fake GlobalSecretCache and GlobalTaggedResources. The SecretStore
sits one level higher and lets tests inject throttling or failures directly
into a TLS artifact cache.
*/
package mock
