// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package board defines the contract between the Plugboard runtime and the
// plugins that run inside it: descriptor types for plugins, actions, and
// screens, the handler signatures the runtime invokes, and the Context
// facade plugins use to reach the runtime's registries.
//
// Plugins never hold direct references to mutable runtime registries. They
// receive a Context and interact exclusively through its capability-scoped
// sub-interfaces.
package board
