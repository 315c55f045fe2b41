// File: manager/doc.go
// Author: momentics <momentics@gmail.com>
//
// Package manager provides SelectorManager, the concrete host container
// a selector.Selector needs: the multiplexer factory, the accept/connect
// object model, and round-robin assignment across N selectors. The Go
// analog of Jetty's abstract SelectorManager, made concrete enough here
// to run end to end; protocol/endpoint specifics are left to the
// injected Handler.
package manager
