// Package tag discovers the secrets holding an instance's TLS artifacts from
// the tags of the EC2 instance, using the Resource Groups Tagging API.
package tag
