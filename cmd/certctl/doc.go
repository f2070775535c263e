// Package main (cmd/certctl) is the command line client of the certificate
// registry. It signs and submits mutations to the registry contract, answers
// verification queries, and maintains the optional receipt archive and event
// index.
//
// Every registry command prints the JSON response shape used by the api
// package and exits non-zero when the operation failed:
//
//	certctl --contract 0x5FbD... --privkey $KEY issue --id CERT-1 --student Alice --course "Systems 101" --date 2024-01-01
//	certctl --contract 0x5FbD... verify --id CERT-1
//	certctl --contract 0x5FbD... --index-db index.db index --watch
//
// Settings can also come from a YAML file (--config) and CERT_REGISTRY_*
// environment variables; explicitly set flags win.
package main
