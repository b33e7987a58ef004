// Package secret resolves the two credentials sheetcore's config layer
// needs without ever holding them in a config file or process environment
// in resolved form: the remote spreadsheet API key and the audit sink URL.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider)
//   - Resolving secret references embedded in configuration values (see
//     Resolver.ResolveValue)
//
// References use the prefix "sheetref:":
//   - Full value:  sheetref:bws:project/dotenv/key/SHEETS_API_KEY
//   - Inline use:  Bearer sheetref:bws:project/dotenv/key/SHEETS_API_KEY
//
// config.Configuration.BuildRemoteHTTPClient and
// config.Configuration.ResolveAuditSinkURL both call ResolveValue against a
// configured Resolver; a value with no sheetref: prefix is only expanded
// for ${VAR}-style environment placeholders and returned as-is.
package secret
