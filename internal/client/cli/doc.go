// Package cli implements refineryctl, the operator command line for the
// refinery security server.
//
// Commands:
//
//	hash-password         prompt for a password and print its bcrypt hash
//	gen-secret            print a random hex secret for token signing
//	login [username]      authenticate and print the session token
//	ping                  print the server clock and round-trip time
//	blocked [list]        list active origin blocks (security.read)
//	blocked unblock <ip>  remove an origin block (security.manage)
//
// Protected commands read the session token from REFINERY_TOKEN or the
// "token" field of the config file.
package cli
