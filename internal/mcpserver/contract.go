package mcpserver

// FilterContract describes the filter expressions accepted by search_assets.
const FilterContract = `# Othala Filter Expression Contract

search_assets narrows results with an optional filter expression evaluated
against the indexed document of every asset.

## Grammar

` + "```" + `
expr       = and { "OR" and }
and        = unary { "AND" unary }
unary      = "NOT" unary | "(" expr ")" | comparison
comparison = string ( "=" | "!=" ) string
` + "```" + `

1. **Keys and values are double-quoted strings.** Escape ` + "`" + `"` + "`" + ` and ` + "`" + `\` + "`" + ` with a
   backslash; a newline is written as ` + "`" + `\n` + "`" + `.
2. **AND binds tighter than OR.** Use parentheses to group alternatives:
   ` + "`" + `("color" = "red" OR "color" = "blue") AND "assetTypeName" = "Food"` + "`" + `.
3. **Operators** are ` + "`" + `AND` + "`" + `, ` + "`" + `OR` + "`" + `, ` + "`" + `NOT` + "`" + ` in upper case.
4. An expression that does not parse is rejected; it is never partially applied.

## Document keys

- ` + "`" + `assetTypeName` + "`" + ` – name of the asset's type.
- ` + "`" + `assetTypeId` + "`" + ` – id of the asset's type.
- ` + "`" + `tags` + "`" + ` – names of the tags assigned to the asset.
- ` + "`" + `<field slug>` + "`" + ` – one key per custom field (see ` + "`" + `slug` + "`" + ` in list_asset_types).
  TAG fields hold tag names, BOOLEAN fields ` + "`" + `true` + "`" + `/` + "`" + `false` + "`" + `, DATE
  ` + "`" + `YYYY-MM-DD` + "`" + `, TIME ` + "`" + `HH:MM` + "`" + ` and DATETIME RFC 3339 in UTC.

Equality is exact. Numeric fields compare by their canonical text
(` + "`" + `3.5` + "`" + `, not ` + "`" + `3.50` + "`" + `); their minimum and maximum appear in ` + "`" + `facetStats` + "`" + `.

## Example

` + "```" + `
"assetTypeName" = "Dairy" AND NOT "location" = "Pantry"
` + "```" + `
`
