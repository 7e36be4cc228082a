package main

import (
	"encoding/csv"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"

	"github.com/go-faker/faker/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"
)

type Sale struct {
	Region string  `parquet:"region"`
	Store  string  `parquet:"store"`
	Units  int64   `parquet:"units"`
	Sales  float64 `parquet:"sales"`
}

var regions = []string{"north", "south", "east", "west"}

func main() {
	r := rand.New(rand.NewSource(1))

	stores := make([]string, 8)
	for i := range stores {
		stores[i] = faker.Word() + "-" + strconv.Itoa(i)
	}

	sales := make([]Sale, 500)
	for i := range sales {
		units := int64(r.Intn(20) + 1)
		sales[i] = Sale{
			Region: regions[r.Intn(len(regions))],
			Store:  stores[r.Intn(len(stores))],
			Units:  units,
			Sales:  float64(units) * (5 + float64(r.Intn(2000))/100),
		}
	}

	writeParquet("sales.parquet", sales)
	writeCSV("sales.csv", sales, false)
	writeCSV("sales.csv.gz", sales, true)

	// sequential mode expects rows clustered by key
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Region < sales[j].Region })
	writeCSV("sales_by_region.csv", sales, false)

	log.Printf("Generated sample inputs with %d sales", len(sales))
}

func writeParquet(name string, sales []Sale) {
	file, err := os.Create(name)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Sale](file)
	if _, err := writer.Write(sales); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
}

func writeCSV(name string, sales []Sale, compress bool) {
	file, err := os.Create(name)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	var w *csv.Writer
	if compress {
		gz := gzip.NewWriter(file)
		defer func() {
			if err := gz.Close(); err != nil {
				log.Fatal(err)
			}
		}()
		w = csv.NewWriter(gz)
	} else {
		w = csv.NewWriter(file)
	}

	_ = w.Write([]string{"region", "store", "units", "sales"})
	for _, s := range sales {
		_ = w.Write([]string{
			s.Region,
			s.Store,
			strconv.FormatInt(s.Units, 10),
			strconv.FormatFloat(s.Sales, 'f', 2, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatal(err)
	}
}
