package scanning

// receiptPrompt is the shared prompt used by all LLM providers. The OCR text is appended.
const receiptPrompt = `Analysiere diesen Beleg und extrahiere die Daten als JSON.
Antworte NUR mit dem JSON-Objekt.

Kategorien:
- fahrtkosten_kfz: Tankbelege, Benzin, Diesel
- fahrtkosten_pauschale: Fahrkarten, ÖPNV, Bahn, Bus
- bewirtung: Restaurant, Bar, Café
- fachliteratur: Bücher, Fachbücher
- bueromaterial: Bürobedarf
- telefonkosten: Telefon, Prepaid
- software: Software-Lizenzen
- getraenke: Getränke fürs Büro
- sonstiges: Parken, Taxi, Uber, Übernachtung, Hotel

WICHTIG für sonstiges - setze "typ" entsprechend:
- "Uber" wenn Uber, Bolt oder ähnliche Ride-Sharing-Dienste
- "Taxi" wenn klassisches Taxi
- "Parken" wenn Parkgebühren
- "Hotel" wenn Übernachtung
- "Sonstiges" für alles andere

JSON Format:
{
  "datum": "TT.MM.JJJJ",
  "betrag": 123.45,
  "waehrung": "EUR",
  "kategorie": "sonstiges",
  "typ": "Uber",
  "beschreibung": "Kurze Beschreibung",
  "anbieter": "Name des Geschäfts",
  "stadt": "Frankfurt",
  "distanz_km": 10.73
}

WICHTIG für Uber/Taxi:
- Extrahiere die Stadt aus der Anbieter-Adresse
- Extrahiere die Distanz in km wenn vorhanden
- Bei Uber Austria → stadt: "Wien"

WICHTIG zur Währung:
- Erkenne die Währung aus dem Beleg (EUR, CHF, USD, GBP, DKK, etc.)
- Verwende den GESAMTBETRAG inkl. MwSt/USt

Beleg-Text:
`

func buildPrompt(text string) string {
	return receiptPrompt + text
}
