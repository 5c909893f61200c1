package grpc

import (
	"log"

	grpcDelivery "github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type cleanupFunc func()

func NewBoxOfficeClient(addr string) (*grpcDelivery.BoxOfficeClient, cleanupFunc, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Println("gRpc BoxOffice client connection failed.", err)
		return nil, nil, err
	}

	log.Println("gRpc BoxOffice client connection established.")
	return grpcDelivery.NewBoxOfficeClient(conn), func() { conn.Close() }, nil
}
