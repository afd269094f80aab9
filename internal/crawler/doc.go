// Package crawler fetches NHANES data portal pages and data files.
//
// # Components
//
//   - Parser: HTML parser that extracts .XPT file links from component
//     listing pages and dataset titles from documentation pages
//   - Fetcher: downloads data files with retry, skip-existing, and
//     politeness delays
//
// Design decision: We parse with golang.org/x/net/html rather than regex
// because:
//  1. It correctly handles the portal's real-world HTML
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//
// # Politeness
//
// The fetcher delays between requests, sends a descriptive User-Agent, and
// never re-downloads files already present on disk.
package crawler
